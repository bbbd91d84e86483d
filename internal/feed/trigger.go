// internal/feed/trigger.go
package feed

import (
	"fmt"
	"regexp"

	"github.com/jmoiron/sqlx"
)

// channelPattern restricts channel names to plain identifiers since the name
// is interpolated into DDL.
var channelPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

const triggerDDL = `
CREATE OR REPLACE FUNCTION notify_task_change() RETURNS trigger AS $$
DECLARE
	payload jsonb;
BEGIN
	IF (TG_OP = 'DELETE') THEN
		payload = jsonb_build_object('action', 'delete', 'task', to_jsonb(OLD));
	ELSIF (TG_OP = 'UPDATE') THEN
		payload = jsonb_build_object('action', 'update', 'task', to_jsonb(NEW), 'old_owner_id', OLD.owner_id);
	ELSE
		payload = jsonb_build_object('action', 'insert', 'task', to_jsonb(NEW));
	END IF;
	PERFORM pg_notify('%s', payload::text);
	RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS tasks_notify_change ON tasks;

CREATE TRIGGER tasks_notify_change
AFTER INSERT OR UPDATE OR DELETE ON tasks
FOR EACH ROW EXECUTE FUNCTION notify_task_change();
`

// InstallTrigger creates or replaces the row-change trigger that feeds the
// change stream. Safe to run on every boot. NOTIFY payloads are capped at
// 8000 bytes; a task row stays well under that with the title and
// description limits in place.
func InstallTrigger(db *sqlx.DB, channel string) error {
	if !channelPattern.MatchString(channel) {
		return fmt.Errorf("invalid feed channel name %q", channel)
	}
	if _, err := db.Exec(fmt.Sprintf(triggerDDL, channel)); err != nil {
		return fmt.Errorf("install task change trigger: %w", err)
	}
	return nil
}
