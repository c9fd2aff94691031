package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed seed/catalog.yaml
var seedFS embed.FS

// SeedCatalog is the on-disk shape of the question catalog.
type SeedCatalog struct {
	DefaultOptions []string       `yaml:"default_options"`
	Categories     []SeedCategory `yaml:"categories"`
}

type SeedCategory struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Weight      float64        `yaml:"weight"`
	Questions   []SeedQuestion `yaml:"questions"`
}

type SeedQuestion struct {
	Code        string   `yaml:"code"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	MaxScore    int      `yaml:"max_score"`
	Options     []string `yaml:"options"`
}

// LoadSeedCatalog parses the catalog at path, or the embedded default when
// path is empty.
func LoadSeedCatalog(path string) (*SeedCatalog, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(path) != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = seedFS.ReadFile("seed/catalog.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read seed catalog: %w", err)
	}
	var sc SeedCatalog
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	if len(sc.Categories) == 0 {
		return nil, fmt.Errorf("seed catalog has no categories")
	}
	return &sc, nil
}

func (sc *SeedCatalog) QuestionCount() int {
	n := 0
	for _, c := range sc.Categories {
		n += len(c.Questions)
	}
	return n
}

func (q SeedQuestion) maxScore() int {
	if q.MaxScore > 0 {
		return q.MaxScore
	}
	return 5
}

// label picks the explicit option, then the catalog default, then "Level n".
func (sc *SeedCatalog) label(q SeedQuestion, score int) string {
	if score <= len(q.Options) && strings.TrimSpace(q.Options[score-1]) != "" {
		return q.Options[score-1]
	}
	if score <= len(sc.DefaultOptions) {
		return sc.DefaultOptions[score-1]
	}
	return fmt.Sprintf("Level %d", score)
}

// SeedIfEmpty inserts the catalog when no category exists yet. It reports
// whether anything was written.
func (s *SQLiteStore) SeedIfEmpty(ctx context.Context, sc *SeedCatalog) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&n); err != nil {
		return false, fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for ci, c := range sc.Categories {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO categories (name, description, weight, position) VALUES (?, ?, ?, ?)`,
				c.Name, toNullString(c.Description), c.Weight, ci+1)
			if err != nil {
				return fmt.Errorf("insert category %q: %w", c.Name, err)
			}
			catID, err := res.LastInsertId()
			if err != nil {
				return err
			}
			for qi, q := range c.Questions {
				res, err := tx.ExecContext(ctx,
					`INSERT INTO questions (category_id, code, title, description, max_score, position) VALUES (?, ?, ?, ?, ?, ?)`,
					catID, q.Code, q.Title, toNullString(q.Description), q.maxScore(), qi+1)
				if err != nil {
					return fmt.Errorf("insert question %s: %w", q.Code, err)
				}
				qid, err := res.LastInsertId()
				if err != nil {
					return err
				}
				for score := 1; score <= q.maxScore(); score++ {
					if _, err := tx.ExecContext(ctx,
						`INSERT INTO question_options (question_id, score, label) VALUES (?, ?, ?)`,
						qid, score, sc.label(q, score)); err != nil {
						return fmt.Errorf("insert option %s/%d: %w", q.Code, score, err)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
