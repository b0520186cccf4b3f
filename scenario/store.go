package scenario

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// Store keeps user-saved scenarios in a SQLite database.
type Store struct {
	conn   *sqlx.DB
	logger *log.Entry
}

// Entry summarizes a saved scenario.
type Entry struct {
	Name        string
	Description string
	SavedAt     time.Time
}

type row struct {
	Name        string `db:"name"`
	Description string `db:"description"`
	SavedAt     int64  `db:"saved_at"`
	Body        string `db:"body"`
}

// OpenStore opens or creates the store at path.
func OpenStore(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	s := &Store{conn: conn, logger: log.WithField("component", "store")}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scenarios (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		saved_at INTEGER NOT NULL,
		body TEXT NOT NULL
	);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Save writes sc under its name, replacing an earlier save.
func (s *Store) Save(sc Scenario) error {
	if sc.Name == "" {
		return errors.New("save scenario: empty name")
	}
	body, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("save %q: %w", sc.Name, err)
	}
	_, err = s.conn.NamedExec(
		`INSERT OR REPLACE INTO scenarios (name, description, saved_at, body)
		VALUES (:name, :description, :saved_at, :body)`,
		row{Name: sc.Name, Description: sc.Description, SavedAt: time.Now().UnixNano(), Body: string(body)},
	)
	if err != nil {
		return fmt.Errorf("save %q: %w", sc.Name, err)
	}
	s.logger.WithFields(log.Fields{"name": sc.Name, "arrays": len(sc.Arrays)}).Info("scenario saved")
	return nil
}

// Load reads the scenario saved as name.
func (s *Store) Load(name string) (*Scenario, error) {
	var r row
	err := s.conn.Get(&r, "SELECT name, description, saved_at, body FROM scenarios WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	result := new(Scenario)
	if err := json.Unmarshal([]byte(r.Body), result); err != nil {
		return nil, fmt.Errorf("load %q: %w", name, err)
	}
	return result, nil
}

// List returns the saved scenarios, most recent first.
func (s *Store) List() ([]Entry, error) {
	var rows []row
	err := s.conn.Select(&rows, "SELECT name, description, saved_at FROM scenarios ORDER BY saved_at DESC, name")
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	result := make([]Entry, len(rows))
	for i, r := range rows {
		result[i] = Entry{Name: r.Name, Description: r.Description, SavedAt: time.Unix(0, r.SavedAt)}
	}
	return result, nil
}

// Delete removes the scenario saved as name.
func (s *Store) Delete(name string) error {
	res, err := s.conn.Exec("DELETE FROM scenarios WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("delete %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %q: %w", name, ErrNotFound)
	}
	return nil
}
