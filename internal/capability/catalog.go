package capability

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/MrSnowNB/project-alice/internal/logging"

	_ "modernc.org/sqlite"
)

const sqliteTimeLayout = "2006-01-02 15:04:05"

// Catalog persists synthesized capability metadata to SQLite so that
// usage history survives restarts. The registry holds the live
// in-memory view; the catalog is its durable shadow and the source of
// truth for idle pruning.
//
// Storage location: .alice/catalog.db
type Catalog struct {
	db     *sql.DB
	mu     sync.Mutex
	dbPath string
}

// CatalogEntry is one synthesized capability row.
type CatalogEntry struct {
	Name        string
	Description string
	Path        string
	Checksum    string
	CreatedAt   time.Time
	LastUsed    *time.Time
	UseCount    int
}

// IdleSince returns the timestamp pruning decisions compare against:
// last use, or creation when the capability was never used.
func (e CatalogEntry) IdleSince() time.Time {
	if e.LastUsed != nil {
		return *e.LastUsed
	}
	return e.CreatedAt
}

// NewCatalog opens (creating if needed) the capability catalog.
func NewCatalog(dbPath string) (*Catalog, error) {
	logging.StoreDebug("Initializing capability catalog at path: %s", dbPath)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		logging.StoreError("Failed to create catalog directory %s: %v", filepath.Dir(dbPath), err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	// WAL keeps the watcher and agent loop from tripping over each
	// other on concurrent writes.
	dsn := dbPath + "?_journal=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logging.StoreError("Failed to open catalog database at %s: %v", dbPath, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	c := &Catalog{db: db, dbPath: dbPath}
	if err := c.initialize(); err != nil {
		logging.StoreError("Failed to initialize catalog schema: %v", err)
		db.Close()
		return nil, err
	}

	logging.Store("Capability catalog initialized at %s", dbPath)
	return c, nil
}

// initialize creates the database schema.
func (c *Catalog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS capabilities (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		path TEXT NOT NULL,
		checksum TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used DATETIME,
		use_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_capabilities_last_used ON capabilities(last_used);
	`

	_, err := c.db.Exec(schema)
	return err
}

// Upsert inserts or updates a capability row. Usage history
// (created_at, last_used, use_count) is preserved on update so that a
// rewritten tool file does not reset its prune clock unfairly.
func (c *Catalog) Upsert(entry CatalogEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		INSERT INTO capabilities (name, description, path, checksum)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			description = excluded.description,
			path = excluded.path,
			checksum = excluded.checksum`,
		entry.Name, entry.Description, entry.Path, entry.Checksum,
	)
	if err != nil {
		logging.StoreError("Failed to upsert capability %s: %v", entry.Name, err)
		return err
	}

	logging.StoreDebug("Upserted capability: %s (checksum=%.12s)", entry.Name, entry.Checksum)
	return nil
}

// Get retrieves a capability row by name.
func (c *Catalog) Get(name string) (*CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	row := c.db.QueryRow(`
		SELECT name, description, path, checksum, created_at, last_used, use_count
		FROM capabilities WHERE name = ?`, name)

	entry, err := scanEntry(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns all capability rows ordered by name.
func (c *Catalog) List() ([]CatalogEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.Query(`
		SELECT name, description, path, checksum, created_at, last_used, use_count
		FROM capabilities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			continue
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Touch records a use: bumps use_count and sets last_used.
func (c *Catalog) Touch(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`
		UPDATE capabilities
		SET use_count = use_count + 1,
		    last_used = CURRENT_TIMESTAMP
		WHERE name = ?`, name)
	return err
}

// Delete removes a capability row.
func (c *Catalog) Delete(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.db.Exec(`DELETE FROM capabilities WHERE name = ?`, name)
	return err
}

// PruneIdle deletes rows idle longer than age and returns their
// entries so callers can deregister and remove source files.
func (c *Catalog) PruneIdle(age time.Duration) ([]CatalogEntry, error) {
	if age <= 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().UTC().Add(-age).Format(sqliteTimeLayout)

	rows, err := c.db.Query(`
		SELECT name, description, path, checksum, created_at, last_used, use_count
		FROM capabilities
		WHERE COALESCE(last_used, created_at) < ?`, cutoff)
	if err != nil {
		return nil, err
	}

	var idle []CatalogEntry
	for rows.Next() {
		entry, err := scanEntry(rows.Scan)
		if err != nil {
			continue
		}
		idle = append(idle, *entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, entry := range idle {
		if _, err := c.db.Exec(`DELETE FROM capabilities WHERE name = ?`, entry.Name); err != nil {
			logging.StoreError("Failed to prune capability %s: %v", entry.Name, err)
		}
	}

	if len(idle) > 0 {
		logging.Store("Pruned %d idle capabilities from catalog", len(idle))
	}
	return idle, nil
}

// Close closes the database connection.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		logging.Store("Closing capability catalog at %s", c.dbPath)
		return c.db.Close()
	}
	return nil
}

// scanEntry scans one row via the given scan function.
func scanEntry(scan func(dest ...any) error) (*CatalogEntry, error) {
	var entry CatalogEntry
	var createdAt string
	var lastUsed sql.NullString

	err := scan(
		&entry.Name, &entry.Description, &entry.Path, &entry.Checksum,
		&createdAt, &lastUsed, &entry.UseCount,
	)
	if err != nil {
		return nil, err
	}

	entry.CreatedAt, _ = time.Parse(sqliteTimeLayout, createdAt)
	if lastUsed.Valid {
		t, _ := time.Parse(sqliteTimeLayout, lastUsed.String)
		entry.LastUsed = &t
	}

	return &entry, nil
}
