package postgresql

// migrations returns the full schema history keyed by version. Nodes and
// edges live as JSONB on the workflow row: graphs are read whole by the
// executor and written whole by the site builder, never queried per-node.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id UUID PRIMARY KEY,
				organization_id TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				trigger_event TEXT NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				metadata JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_org
				ON workflows (organization_id)
				WHERE deleted_at IS NULL;

			CREATE INDEX IF NOT EXISTS idx_workflows_trigger_event
				ON workflows (organization_id, trigger_event)
				WHERE deleted_at IS NULL AND status = 'published';

			CREATE TABLE IF NOT EXISTS runs (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL,
				organization_id TEXT NOT NULL,
				status TEXT NOT NULL,
				current_node_id TEXT NOT NULL DEFAULT '',
				context JSONB NOT NULL DEFAULT '{}',
				steps_completed INTEGER NOT NULL DEFAULT 0,
				max_steps INTEGER NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				paused_until TIMESTAMP WITH TIME ZONE,
				idempotency_key TEXT,
				error TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				completed_at TIMESTAMP WITH TIME ZONE
			);

			CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_idempotency
				ON runs (organization_id, idempotency_key)
				WHERE idempotency_key IS NOT NULL AND idempotency_key <> '';

			CREATE INDEX IF NOT EXISTS idx_runs_workflow
				ON runs (workflow_id);

			CREATE TABLE IF NOT EXISTS scheduled_jobs (
				id UUID PRIMARY KEY,
				run_id UUID NOT NULL,
				node_id TEXT NOT NULL,
				reason TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL,
				execute_at TIMESTAMP WITH TIME ZONE NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_scheduled_jobs_due
				ON scheduled_jobs (execute_at)
				WHERE status = 'queued';

			CREATE TABLE IF NOT EXISTS run_logs (
				id UUID PRIMARY KEY,
				run_id UUID NOT NULL,
				node_id TEXT NOT NULL DEFAULT '',
				level TEXT NOT NULL,
				message TEXT NOT NULL,
				data JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_run_logs_run
				ON run_logs (run_id, created_at);

			CREATE TABLE IF NOT EXISTS automation_settings (
				organization_id TEXT PRIMARY KEY,
				business_hours JSONB NOT NULL DEFAULT '{}',
				quiet_hours JSONB NOT NULL DEFAULT '{}',
				rate_limits JSONB NOT NULL DEFAULT '{}',
				sender JSONB NOT NULL DEFAULT '{}',
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);
		`,
		2: `
			ALTER TABLE runs
				ADD COLUMN IF NOT EXISTS paused_at TIMESTAMP WITH TIME ZONE;
		`,
	}
}
