package pg

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/waveboard-dev/waveboard/shared/config"
	"github.com/waveboard-dev/waveboard/shared/logger"

	_ "github.com/lib/pq"
)

type Storage struct {
	db *sql.DB
}

func New(cfg config.Pg) (*Storage, error) {
	logger.Log.Info("connecting to db")
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.InitPath != "" {
		logger.Log.Info("initializing db schema")
		if err := Init(db, cfg); err != nil {
			return nil, err
		}
	}

	return &Storage{db}, nil
}

func Connect(cfg config.Pg) (*sql.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func Init(db *sql.DB, cfg config.Pg) error {
	query, err := os.ReadFile(cfg.InitPath)
	if err != nil {
		return err
	}

	_, err = db.Exec(string(query))
	return err
}

func (s *Storage) Cleanup() error {
	return s.db.Close()
}
