package sqlite

// Schema DDL. Stages and rules carry an ordinal; opportunities carry their
// stage and position within it.
const (
	createStages = `CREATE TABLE stages (
    stage_id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    ordinal INTEGER NOT NULL,
    stage_limit INTEGER NOT NULL DEFAULT 0,
    outcome TEXT NOT NULL DEFAULT ''
);`

	createOpportunities = `CREATE TABLE opportunities (
    opportunity_id TEXT PRIMARY KEY,
    stage_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    name TEXT NOT NULL,
    company TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT '',
    phone TEXT NOT NULL DEFAULT '',
    value REAL NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    owner TEXT NOT NULL DEFAULT '',
    priority TEXT NOT NULL,
    last_contact TEXT,
    FOREIGN KEY (stage_id) REFERENCES stages(stage_id)
);`

	createRules = `CREATE TABLE rules (
    rule_id TEXT PRIMARY KEY,
    ordinal INTEGER NOT NULL,
    name TEXT NOT NULL,
    triggers TEXT NOT NULL,
    response TEXT NOT NULL,
    active INTEGER NOT NULL,
    delay_ms INTEGER NOT NULL DEFAULT 0,
    is_global INTEGER NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    created_by_name TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    last_triggered TEXT,
    trigger_count INTEGER NOT NULL DEFAULT 0
);`

	createAccounts = `CREATE TABLE accounts (
    user_id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE COLLATE NOCASE,
    role TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    external_id TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    rca_number TEXT NOT NULL DEFAULT '',
    monthly_goal REAL NOT NULL DEFAULT 0,
    inactive INTEGER NOT NULL DEFAULT 0,
    password_hash TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);`
)

// Index DDL for common queries.
const (
	idxStagesOrdinal      = `CREATE INDEX idx_stages_ordinal ON stages(ordinal);`
	idxOpportunitiesStage = `CREATE INDEX idx_opportunities_stage ON opportunities(stage_id, position);`
	idxRulesOrdinal       = `CREATE INDEX idx_rules_ordinal ON rules(ordinal);`
)

// schemaDDL lists all CREATE TABLE statements in dependency order.
var schemaDDL = []string{
	createStages,
	createOpportunities,
	createRules,
	createAccounts,
}

// indexDDL lists all CREATE INDEX statements.
var indexDDL = []string{
	idxStagesOrdinal,
	idxOpportunitiesStage,
	idxRulesOrdinal,
}
