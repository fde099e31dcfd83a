// Package ledger provides the local accounting document store the migration
// writes into: accounts, parties, documents with their lines, and an
// append-only migration log.
package ledger

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Chart of accounts
CREATE TABLE IF NOT EXISTS accounts (
    name TEXT PRIMARY KEY,
    external_code TEXT,                -- E-Boekhouden ledger code, if mapped
    root_type TEXT NOT NULL,           -- asset/liability/equity/income/expense
    is_group INTEGER NOT NULL DEFAULT 0,
    company TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_accounts_external_code
    ON accounts(external_code);

-- Customers and suppliers
CREATE TABLE IF NOT EXISTS parties (
    name TEXT PRIMARY KEY,
    party_type TEXT NOT NULL,          -- 'Customer' or 'Supplier'
    relation_id INTEGER,               -- E-Boekhouden relation ID, if known
    provisional INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_parties_relation
    ON parties(party_type, relation_id);

-- Financial documents
CREATE TABLE IF NOT EXISTS documents (
    name TEXT PRIMARY KEY,
    doctype TEXT NOT NULL,             -- Sales Invoice / Purchase Invoice / Payment Entry / Journal Entry
    posting_date TEXT NOT NULL,        -- YYYY-MM-DD
    title TEXT,
    eb_mutation_id INTEGER,            -- external mutation ID (immutable once set)
    company TEXT NOT NULL,
    docstatus INTEGER NOT NULL DEFAULT 0,  -- 0 draft, 1 submitted
    party_type TEXT,
    party TEXT,
    tax_template TEXT,
    reference_no TEXT,
    unallocated_amount REAL NOT NULL DEFAULT 0,
    total_debit REAL NOT NULL DEFAULT 0,
    total_credit REAL NOT NULL DEFAULT 0,
    remarks TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_documents_mutation
    ON documents(eb_mutation_id);

CREATE INDEX IF NOT EXISTS idx_documents_type_date
    ON documents(doctype, posting_date);

-- Document lines (become GL entries on submit)
CREATE TABLE IF NOT EXISTS document_lines (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_name TEXT NOT NULL REFERENCES documents(name) ON DELETE CASCADE,
    account TEXT NOT NULL,
    debit REAL NOT NULL DEFAULT 0,
    credit REAL NOT NULL DEFAULT 0,
    description TEXT,
    quantity REAL NOT NULL DEFAULT 0,
    rate REAL NOT NULL DEFAULT 0,
    vat_code TEXT
);

CREATE INDEX IF NOT EXISTS idx_document_lines_doc
    ON document_lines(document_name);

CREATE INDEX IF NOT EXISTS idx_document_lines_account
    ON document_lines(account);

-- Migration log
-- Append-only record of per-mutation outcomes across runs
CREATE TABLE IF NOT EXISTS migration_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    mutation_id INTEGER NOT NULL,
    mutation_type INTEGER NOT NULL,
    category TEXT NOT NULL,
    subcategory TEXT,
    document_name TEXT,
    detail TEXT,
    logged_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_migration_log_mutation
    ON migration_log(mutation_id);

CREATE INDEX IF NOT EXISTS idx_migration_log_category
    ON migration_log(category);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
