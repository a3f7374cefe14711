package places

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps every kind of place in one SQLite database.
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLiteBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open places db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteBackend{db: db}, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS places (
		kind TEXT NOT NULL,
		scope TEXT NOT NULL,
		name_key TEXT NOT NULL,
		name TEXT NOT NULL,
		owner_id TEXT NOT NULL,
		owner_name TEXT NOT NULL,
		world TEXT NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		pitch REAL NOT NULL,
		yaw REAL NOT NULL,
		PRIMARY KEY (kind, scope, name_key)
	);`)
	if err != nil {
		return fmt.Errorf("create places table: %w", err)
	}
	return nil
}

// Close releases the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func (b *SQLiteBackend) LoadPlaces(kind string) (map[string][]Place, error) {
	rows, err := b.db.Query(`SELECT scope,name,owner_id,owner_name,world,x,y,z,pitch,yaw
		FROM places WHERE kind=? ORDER BY scope,name_key`, kind)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]Place)
	for rows.Next() {
		var (
			scope, owner string
			p            Place
			x, y, z      float64
		)
		if err := rows.Scan(&scope, &p.Name, &owner, &p.OwnerName, &p.Location.World,
			&x, &y, &z, &p.Location.Pitch, &p.Location.Yaw); err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		if owner != "" {
			id, err := uuid.Parse(owner)
			if err != nil {
				return nil, fmt.Errorf("place %q owner: %w", p.Name, err)
			}
			p.OwnerID = id
		}
		p.Location.Pos = mgl64.Vec3{x, y, z}
		out[scope] = append(out[scope], p)
	}
	return out, rows.Err()
}

func (b *SQLiteBackend) PutPlace(kind, scope string, p Place) error {
	owner := ""
	if p.OwnerID != uuid.Nil {
		owner = p.OwnerID.String()
	}
	loc := p.Location
	_, err := b.db.Exec(`INSERT INTO places (kind,scope,name_key,name,owner_id,owner_name,world,x,y,z,pitch,yaw)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(kind,scope,name_key) DO UPDATE SET
			name=excluded.name, owner_id=excluded.owner_id, owner_name=excluded.owner_name,
			world=excluded.world, x=excluded.x, y=excluded.y, z=excluded.z,
			pitch=excluded.pitch, yaw=excluded.yaw`,
		kind, scope, Key(p.Name), p.Name, owner, p.OwnerName, loc.World,
		loc.X(), loc.Y(), loc.Z(), loc.Pitch, loc.Yaw)
	if err != nil {
		return fmt.Errorf("save place: %w", err)
	}
	return nil
}

func (b *SQLiteBackend) DeletePlace(kind, scope, name string) error {
	if _, err := b.db.Exec(`DELETE FROM places WHERE kind=? AND scope=? AND name_key=?`, kind, scope, Key(name)); err != nil {
		return fmt.Errorf("delete place: %w", err)
	}
	return nil
}
