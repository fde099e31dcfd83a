package ledger

import (
	"database/sql"
	"fmt"
	"math"
	"strings"
)

// BalanceTolerance is the maximum accepted difference between total debit
// and total credit of a document, in currency units.
const BalanceTolerance = 0.01

// Store provides document, account and party operations over a Connection.
// The migration core only uses create, exists-by-filter and submit; the
// rest supports resolution and quality checking.
type Store struct {
	conn *Connection
}

// NewStore creates a new Store.
func NewStore(conn *Connection) *Store {
	return &Store{conn: conn}
}

// CreateDocument inserts a document and its lines as a draft.
// Unbalanced documents are refused: |sum(debit) - sum(credit)| must not
// exceed BalanceTolerance.
func (s *Store) CreateDocument(doc *Document) error {
	if doc.Name == "" {
		return fmt.Errorf("document name is required")
	}
	if len(doc.Lines) == 0 {
		return fmt.Errorf("document %s has no lines", doc.Name)
	}

	var totalDebit, totalCredit float64
	for _, line := range doc.Lines {
		totalDebit += line.Debit
		totalCredit += line.Credit
	}

	if math.Abs(totalDebit-totalCredit) > BalanceTolerance {
		return fmt.Errorf("document %s is not balanced: debit %.2f, credit %.2f", doc.Name, totalDebit, totalCredit)
	}

	doc.TotalDebit = totalDebit
	doc.TotalCredit = totalCredit
	doc.Docstatus = StatusDraft

	return s.conn.Transaction(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO documents (
				name, doctype, posting_date, title, eb_mutation_id, company,
				docstatus, party_type, party, tax_template, reference_no,
				unallocated_amount, total_debit, total_credit, remarks
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.Name, string(doc.DocType), doc.PostingDate, doc.Title,
			nullableID(doc.EBMutationID), doc.Company, doc.Docstatus,
			doc.PartyType, doc.Party, doc.TaxTemplate, doc.ReferenceNo,
			doc.UnallocatedAmount, doc.TotalDebit, doc.TotalCredit, doc.Remarks,
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		for _, line := range doc.Lines {
			_, err := tx.Exec(`
				INSERT INTO document_lines (
					document_name, account, debit, credit, description,
					quantity, rate, vat_code
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				doc.Name, line.Account, line.Debit, line.Credit,
				line.Description, line.Quantity, line.Rate, line.VATCode,
			)
			if err != nil {
				return fmt.Errorf("failed to insert document line: %w", err)
			}
		}

		return nil
	})
}

// SubmitDocument moves a draft document to submitted state.
// Submission is transactional: the document either becomes fully visible
// to reports or stays a retryable draft.
func (s *Store) SubmitDocument(name string) error {
	result, err := s.conn.Exec(
		`UPDATE documents SET docstatus = ? WHERE name = ? AND docstatus = ?`,
		StatusSubmitted, name, StatusDraft,
	)
	if err != nil {
		return fmt.Errorf("failed to submit document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("document %s is not a draft", name)
	}

	return nil
}

// GetDocument retrieves a document with its lines.
// Returns nil when the document does not exist.
func (s *Store) GetDocument(name string) (*Document, error) {
	var doc Document
	var docType string
	var mutationID sql.NullInt64

	err := s.conn.QueryRow(`
		SELECT name, doctype, posting_date, title, eb_mutation_id, company,
		       docstatus, party_type, party, tax_template, reference_no,
		       unallocated_amount, total_debit, total_credit, remarks
		FROM documents WHERE name = ?`, name,
	).Scan(
		&doc.Name, &docType, &doc.PostingDate, &doc.Title, &mutationID,
		&doc.Company, &doc.Docstatus, &doc.PartyType, &doc.Party,
		&doc.TaxTemplate, &doc.ReferenceNo, &doc.UnallocatedAmount,
		&doc.TotalDebit, &doc.TotalCredit, &doc.Remarks,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	doc.DocType = DocType(docType)
	if mutationID.Valid {
		doc.EBMutationID = mutationID.Int64
	}

	rows, err := s.conn.Query(`
		SELECT account, debit, credit, description, quantity, rate, vat_code
		FROM document_lines WHERE document_name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get document lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line DocumentLine
		var vatCode sql.NullString
		if err := rows.Scan(
			&line.Account, &line.Debit, &line.Credit, &line.Description,
			&line.Quantity, &line.Rate, &vatCode,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document line: %w", err)
		}
		line.VATCode = vatCode.String
		doc.Lines = append(doc.Lines, line)
	}

	return &doc, nil
}

// ExistsByFilter reports whether any document matches the filter.
func (s *Store) ExistsByFilter(f Filter) (bool, error) {
	where, args := buildFilter(f)

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM documents %s`, where)
	if err := s.conn.QueryRow(query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check document existence: %w", err)
	}

	return count > 0, nil
}

// FindDocuments retrieves document headers matching the filter, without lines.
func (s *Store) FindDocuments(f Filter) ([]Document, error) {
	where, args := buildFilter(f)

	query := fmt.Sprintf(`
		SELECT name, doctype, posting_date, title, eb_mutation_id, company,
		       docstatus, party_type, party, tax_template, reference_no,
		       unallocated_amount, total_debit, total_credit, remarks
		FROM documents %s ORDER BY posting_date, name`, where)

	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var docType string
		var mutationID sql.NullInt64

		if err := rows.Scan(
			&doc.Name, &docType, &doc.PostingDate, &doc.Title, &mutationID,
			&doc.Company, &doc.Docstatus, &doc.PartyType, &doc.Party,
			&doc.TaxTemplate, &doc.ReferenceNo, &doc.UnallocatedAmount,
			&doc.TotalDebit, &doc.TotalCredit, &doc.Remarks,
		); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		doc.DocType = DocType(docType)
		if mutationID.Valid {
			doc.EBMutationID = mutationID.Int64
		}
		docs = append(docs, doc)
	}

	return docs, nil
}

// EnsureAccount creates the account if it does not already exist.
func (s *Store) EnsureAccount(acc Account) error {
	if acc.Name == "" {
		return fmt.Errorf("account name is required")
	}

	_, err := s.conn.Exec(`
		INSERT INTO accounts (name, external_code, root_type, is_group, company)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		acc.Name, acc.ExternalCode, string(acc.RootType), boolToInt(acc.IsGroup), acc.Company,
	)
	if err != nil {
		return fmt.Errorf("failed to ensure account: %w", err)
	}

	return nil
}

// GetAccount retrieves an account by name. Returns nil when absent.
func (s *Store) GetAccount(name string) (*Account, error) {
	var acc Account
	var rootType string
	var externalCode sql.NullString
	var isGroup int

	err := s.conn.QueryRow(`
		SELECT name, external_code, root_type, is_group, company
		FROM accounts WHERE name = ?`, name,
	).Scan(&acc.Name, &externalCode, &rootType, &isGroup, &acc.Company)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	acc.ExternalCode = externalCode.String
	acc.RootType = RootType(rootType)
	acc.IsGroup = isGroup != 0
	return &acc, nil
}

// GetAccountByExternalCode retrieves an account by its E-Boekhouden ledger
// code. Returns nil when no account carries the code.
func (s *Store) GetAccountByExternalCode(code string) (*Account, error) {
	var name string
	err := s.conn.QueryRow(
		`SELECT name FROM accounts WHERE external_code = ? LIMIT 1`, code,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account by external code: %w", err)
	}

	return s.GetAccount(name)
}

// AccountHasEntries reports whether any submitted document posts to the account.
func (s *Store) AccountHasEntries(name string) (bool, error) {
	var count int
	err := s.conn.QueryRow(`
		SELECT COUNT(*)
		FROM document_lines l
		JOIN documents d ON d.name = l.document_name
		WHERE l.account = ? AND d.docstatus = ?`, name, StatusSubmitted,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check account entries: %w", err)
	}

	return count > 0, nil
}

// EnsureParty creates the party if it does not already exist.
func (s *Store) EnsureParty(p Party) error {
	if p.Name == "" {
		return fmt.Errorf("party name is required")
	}

	_, err := s.conn.Exec(`
		INSERT INTO parties (name, party_type, relation_id, provisional)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO NOTHING`,
		p.Name, p.PartyType, nullableID(p.RelationID), boolToInt(p.Provisional),
	)
	if err != nil {
		return fmt.Errorf("failed to ensure party: %w", err)
	}

	return nil
}

// GetPartyByRelation retrieves a party by type and E-Boekhouden relation ID.
// Returns nil when no such party exists.
func (s *Store) GetPartyByRelation(partyType string, relationID int64) (*Party, error) {
	var p Party
	var relID sql.NullInt64
	var provisional int

	err := s.conn.QueryRow(`
		SELECT name, party_type, relation_id, provisional
		FROM parties WHERE party_type = ? AND relation_id = ? LIMIT 1`,
		partyType, relationID,
	).Scan(&p.Name, &p.PartyType, &relID, &provisional)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get party by relation: %w", err)
	}

	if relID.Valid {
		p.RelationID = relID.Int64
	}
	p.Provisional = provisional != 0
	return &p, nil
}

// ProvisionalParties retrieves all provisional placeholder parties.
func (s *Store) ProvisionalParties() ([]Party, error) {
	rows, err := s.conn.Query(`
		SELECT name, party_type, relation_id, provisional
		FROM parties WHERE provisional = 1 ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to get provisional parties: %w", err)
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		var p Party
		var relID sql.NullInt64
		var provisional int

		if err := rows.Scan(&p.Name, &p.PartyType, &relID, &provisional); err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		if relID.Valid {
			p.RelationID = relID.Int64
		}
		p.Provisional = provisional != 0
		parties = append(parties, p)
	}

	return parties, nil
}

// GLEntries retrieves general-ledger postings derived from submitted documents.
func (s *Store) GLEntries() ([]GLEntry, error) {
	rows, err := s.conn.Query(`
		SELECT l.account, l.debit, l.credit, d.doctype, d.name,
		       d.posting_date, d.party, d.remarks
		FROM document_lines l
		JOIN documents d ON d.name = l.document_name
		WHERE d.docstatus = ?
		ORDER BY d.posting_date, d.name, l.id`, StatusSubmitted)
	if err != nil {
		return nil, fmt.Errorf("failed to get GL entries: %w", err)
	}
	defer rows.Close()

	var entries []GLEntry
	for rows.Next() {
		var e GLEntry
		var voucherType string

		if err := rows.Scan(
			&e.Account, &e.Debit, &e.Credit, &voucherType, &e.VoucherNo,
			&e.PostingDate, &e.Party, &e.Remarks,
		); err != nil {
			return nil, fmt.Errorf("failed to scan GL entry: %w", err)
		}
		e.VoucherType = DocType(voucherType)
		entries = append(entries, e)
	}

	return entries, nil
}

// RecordResult appends one migration outcome to the migration log.
// The log is append-only; outcomes are never updated.
func (s *Store) RecordResult(e LogEntry) error {
	_, err := s.conn.Exec(`
		INSERT INTO migration_log (mutation_id, mutation_type, category, subcategory, document_name, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.MutationID, e.MutationType, e.Category, e.Subcategory, e.DocumentName, e.Detail,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration result: %w", err)
	}

	return nil
}

// GetStats retrieves migration statistics from the log and document tables.
func (s *Store) GetStats() (*Stats, error) {
	stats := &Stats{ByCategory: make(map[string]int)}

	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM migration_log`).Scan(&stats.TotalProcessed); err != nil {
		return nil, fmt.Errorf("failed to get processed count: %w", err)
	}

	rows, err := s.conn.Query(`SELECT category, COUNT(*) FROM migration_log GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to get category counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.ByCategory[category] = count
	}

	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&stats.Documents); err != nil {
		return nil, fmt.Errorf("failed to get document count: %w", err)
	}

	var lastRun sql.NullString
	err = s.conn.QueryRow(`SELECT MAX(logged_at) FROM migration_log`).Scan(&lastRun)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last run time: %w", err)
	}
	stats.LastRun = lastRun.String

	return stats, nil
}

// buildFilter constructs a WHERE clause from a Filter.
func buildFilter(f Filter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.DocType != "" {
		clauses = append(clauses, "doctype = ?")
		args = append(args, string(f.DocType))
	}
	if f.EBMutationID != 0 {
		clauses = append(clauses, "eb_mutation_id = ?")
		args = append(args, f.EBMutationID)
	}
	if f.TitleLike != "" {
		clauses = append(clauses, "title LIKE ?")
		args = append(args, f.TitleLike)
	}
	if f.DateFrom != "" {
		clauses = append(clauses, "posting_date >= ?")
		args = append(args, f.DateFrom)
	}
	if f.DateTo != "" {
		clauses = append(clauses, "posting_date <= ?")
		args = append(args, f.DateTo)
	}
	if f.Submitted != nil {
		clauses = append(clauses, "docstatus = ?")
		if *f.Submitted {
			args = append(args, StatusSubmitted)
		} else {
			args = append(args, StatusDraft)
		}
	}

	if len(clauses) == 0 {
		return "", nil
	}

	return "WHERE " + strings.Join(clauses, " AND "), args
}

func nullableID(id int64) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
