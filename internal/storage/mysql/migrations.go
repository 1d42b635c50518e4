package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"NovaWallet/deploy/migrations"
)

const (
	createVersionTableSQL = `CREATE TABLE IF NOT EXISTS nova_schema_migrations (
    version VARCHAR(32) NOT NULL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    applied_at BIGINT NOT NULL
)`
	selectVersionsSQL = `SELECT version FROM nova_schema_migrations`
	insertVersionSQL  = `INSERT INTO nova_schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`
)

// loadMigrations 可在测试中替换。
var loadMigrations = migrations.Load

// Migrate 执行尚未应用的迁移，返回本次新应用的版本号。
func Migrate(ctx context.Context, db *sql.DB) ([]string, error) {
	if _, err := db.ExecContext(ctx, createVersionTableSQL); err != nil {
		return nil, fmt.Errorf("创建迁移版本表失败: %w", err)
	}

	done, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	pending, err := loadMigrations()
	if err != nil {
		return nil, err
	}

	var applied []string
	for _, m := range pending {
		if done[m.Version] {
			continue
		}
		if err := runInTx(ctx, db, func(tx *sql.Tx) error {
			for i, stmt := range m.Statements {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("迁移 %s 第 %d 条语句失败: %w", m.Name, i+1, err)
				}
			}
			_, err := tx.ExecContext(ctx, insertVersionSQL, m.Version, m.Name, time.Now().Unix())
			return err
		}); err != nil {
			return applied, err
		}
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, selectVersionsSQL)
	if err != nil {
		return nil, fmt.Errorf("查询迁移版本失败: %w", err)
	}
	defer rows.Close()

	done := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func runInTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("开启迁移事务失败: %w", err)
	}
	if err := fn(tx); err != nil {
		return errors.Join(err, tx.Rollback())
	}
	return tx.Commit()
}
