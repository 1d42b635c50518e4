package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	driver "github.com/go-sql-driver/mysql"
)

const (
	defaultMaxOpenConns    = 20
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultDialTimeout     = 5 * time.Second
)

// Config 描述审计库的连接池参数，零值字段使用默认值。
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = defaultMaxOpenConns
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = defaultMaxIdleConns
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = defaultConnMaxLifetime
	}
	return c
}

// driverConfig 解析 DSN；未设置拨号超时时补上默认值，避免启动卡死。
func driverConfig(dsn string) (*driver.Config, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("审计库 DSN 为空")
	}
	dc, err := driver.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("解析审计库 DSN 失败: %w", err)
	}
	if dc.Timeout == 0 {
		dc.Timeout = defaultDialTimeout
	}
	return dc, nil
}

// Open 建立连接池并 ping 一次。
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dc, err := driverConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	connector, err := driver.NewConnector(dc)
	if err != nil {
		return nil, fmt.Errorf("创建 MySQL connector 失败: %w", err)
	}

	cfg = cfg.withDefaults()
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("审计库 %s 不可达: %w", dc.Addr, err)
	}
	return db, nil
}
