package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE statuses (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				color VARCHAR(32) NOT NULL DEFAULT '',
				position INT NOT NULL DEFAULT 0,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_statuses_position ON statuses(position);

			CREATE TABLE startups (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				status_id UUID REFERENCES statuses(id),
				priority VARCHAR(16),
				assigned_to VARCHAR(255),
				due_date TIMESTAMP WITH TIME ZONE,
				field_values JSONB NOT NULL DEFAULT '{}',
				labels JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_startups_status_id ON startups(status_id);
			CREATE INDEX idx_startups_deleted_at ON startups(deleted_at);

			CREATE TABLE startup_status_history (
				id UUID PRIMARY KEY,
				startup_id UUID NOT NULL REFERENCES startups(id) ON DELETE CASCADE,
				status_id UUID NOT NULL,
				previous_status_id UUID,
				entered_at TIMESTAMP WITH TIME ZONE NOT NULL,
				exited_at TIMESTAMP WITH TIME ZONE,
				duration_seconds BIGINT
			);

			CREATE INDEX idx_history_startup_id ON startup_status_history(startup_id);
			CREATE INDEX idx_history_open ON startup_status_history(startup_id) WHERE exited_at IS NULL;

			CREATE TABLE workflow_rules (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				conditions JSONB NOT NULL DEFAULT '[]',
				actions JSONB NOT NULL DEFAULT '[]',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
		2: `
			-- Transactional status move: rejects empty targets, closes the
			-- open history row, and updates the startup in one transaction.
			-- History insertion stays with the caller so exactly one row is
			-- written per move no matter which update tier succeeds.
			CREATE OR REPLACE FUNCTION update_startup_status_safely(
				p_startup_id UUID,
				p_new_status_id UUID,
				p_old_status_id UUID
			) RETURNS void AS $$
			BEGIN
				IF p_startup_id IS NULL OR p_new_status_id IS NULL THEN
					RAISE EXCEPTION 'startup id and new status id are required';
				END IF;

				IF NOT EXISTS (SELECT 1 FROM statuses WHERE id = p_new_status_id) THEN
					RAISE EXCEPTION 'status % does not exist', p_new_status_id;
				END IF;

				UPDATE startup_status_history
				SET exited_at = NOW(),
					duration_seconds = EXTRACT(EPOCH FROM (NOW() - entered_at))::bigint
				WHERE startup_id = p_startup_id AND exited_at IS NULL;

				UPDATE startups
				SET status_id = p_new_status_id, updated_at = NOW()
				WHERE id = p_startup_id AND deleted_at IS NULL;

				IF NOT FOUND THEN
					RAISE EXCEPTION 'startup % does not exist', p_startup_id;
				END IF;
			END;
			$$ LANGUAGE plpgsql;
		`,
	}
}
