package db

const createSchemaViewSyncSQL = `
	CREATE SCHEMA viewsync
`

const commentOnSchemaViewSyncSQL = `
	COMMENT ON SCHEMA viewsync IS 'Schema containing the viewsync change-notification trigger function'
`

// notify_change publishes the full row change as a JSON payload on the
// notification channel the NotifyProvider listens on.
const createNotifyTriggerFuncSQL = `
	CREATE OR REPLACE FUNCTION viewsync.notify_change()
	RETURNS TRIGGER AS $$
	DECLARE
		payload TEXT;
	BEGIN
		IF (TG_OP = 'DELETE') THEN
			payload := json_build_object(
				'action', 'delete',
				'schema', TG_TABLE_SCHEMA,
				'table', TG_TABLE_NAME,
				'timestamp', to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
				'old_values', row_to_json(OLD)
			)::TEXT;
		ELSIF (TG_OP = 'UPDATE') THEN
			payload := json_build_object(
				'action', 'update',
				'schema', TG_TABLE_SCHEMA,
				'table', TG_TABLE_NAME,
				'timestamp', to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
				'new_values', row_to_json(NEW),
				'old_values', row_to_json(OLD)
			)::TEXT;
		ELSE
			payload := json_build_object(
				'action', 'insert',
				'schema', TG_TABLE_SCHEMA,
				'table', TG_TABLE_NAME,
				'timestamp', to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'),
				'new_values', row_to_json(NEW)
			)::TEXT;
		END IF;

		PERFORM pg_notify('viewsync_changes', payload);
		RETURN NULL;
	END;
	$$ LANGUAGE plpgsql
`

const registerNotifyTriggerSQL = `
	CREATE TRIGGER viewsync_notify_change
	AFTER INSERT OR UPDATE OR DELETE ON %s.%s
	FOR EACH ROW EXECUTE PROCEDURE viewsync.notify_change()
`
