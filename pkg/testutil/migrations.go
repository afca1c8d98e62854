package testutil

// AttendanceMigrations returns the attendance service schema for tests
func AttendanceMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS clock_events (
			id UUID PRIMARY KEY,
			employee_id VARCHAR(64) NOT NULL,
			employee_name VARCHAR(255) NOT NULL DEFAULT '',
			clock_in TIMESTAMPTZ NOT NULL,
			clock_out TIMESTAMPTZ,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			adjustment_request_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT clock_events_status_valid CHECK (status IN ('active', 'completed', 'adjusted')),
			CONSTRAINT clock_out_after_clock_in CHECK (clock_out IS NULL OR clock_out >= clock_in)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_clock_events_clock_in ON clock_events (clock_in)`,
		`CREATE INDEX IF NOT EXISTS idx_clock_events_employee ON clock_events (employee_id, clock_in)`,

		`CREATE TABLE IF NOT EXISTS adjustment_requests (
			id UUID PRIMARY KEY,
			time_entry_id UUID NOT NULL CONSTRAINT adjustment_requests_time_entry_fkey REFERENCES clock_events (id),
			employee_id VARCHAR(64) NOT NULL,
			employee_name VARCHAR(255) NOT NULL DEFAULT '',
			original_clock_in TIMESTAMPTZ NOT NULL,
			original_clock_out TIMESTAMPTZ,
			requested_clock_in TIMESTAMPTZ NOT NULL,
			requested_clock_out TIMESTAMPTZ,
			reason VARCHAR(32) NOT NULL,
			reason_text TEXT NOT NULL DEFAULT '',
			notes TEXT,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			reviewed_by VARCHAR(64),
			reviewed_at TIMESTAMPTZ,
			review_notes TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT adjustment_requests_status_valid CHECK (status IN ('pending', 'approved', 'rejected')),
			CONSTRAINT adjustment_requests_reason_valid CHECK (
				reason IN ('forgot_clock_in', 'forgot_clock_out', 'system_error', 'wrong_time', 'other')
			),
			CONSTRAINT adjustment_requests_review_fields CHECK (
				(status = 'pending' AND reviewed_by IS NULL AND reviewed_at IS NULL AND review_notes IS NULL)
				OR (status <> 'pending' AND reviewed_by IS NOT NULL AND reviewed_at IS NOT NULL AND review_notes IS NOT NULL)
			)
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS one_pending_per_entry
			ON adjustment_requests (time_entry_id) WHERE status = 'pending'`,
		`CREATE INDEX IF NOT EXISTS idx_adjustment_requests_status ON adjustment_requests (status, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS attendance_settings (
			id SMALLINT PRIMARY KEY CHECK (id = 1),
			expected_clock_in_time CHAR(5) NOT NULL,
			late_threshold_minutes INTEGER NOT NULL CHECK (late_threshold_minutes >= 0),
			absent_threshold_minutes INTEGER NOT NULL,
			work_days INTEGER[] NOT NULL DEFAULT '{1,2,3,4,5}',
			track_weekends BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT attendance_settings_thresholds_ordered CHECK (absent_threshold_minutes > late_threshold_minutes)
		)`,

		`CREATE TABLE IF NOT EXISTS roster_employees (
			employee_id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS employee_leaves (
			absence_id VARCHAR(64) PRIMARY KEY,
			employee_id VARCHAR(64) NOT NULL,
			absence_type VARCHAR(32) NOT NULL,
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			status VARCHAR(20) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT employee_leaves_dates_ordered CHECK (end_date >= start_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_employee_leaves_range ON employee_leaves (start_date, end_date)`,
	}
}

// AttendanceTables lists the tables Reset truncates
func AttendanceTables() []string {
	return []string{"adjustment_requests", "clock_events", "attendance_settings", "roster_employees", "employee_leaves"}
}
