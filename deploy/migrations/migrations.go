// Package migrations ships the preview audit schema.
package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed *.sql
var files embed.FS

// Migration 是一个按版本号排序的迁移文件。
type Migration struct {
	Version    string
	Name       string
	Statements []string
}

// Load 读取内置迁移，按版本升序返回。空文件被忽略。
func Load() ([]Migration, error) {
	return load(files)
}

func load(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("读取迁移目录失败: %w", err)
	}

	var out []Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("读取迁移文件 %s 失败: %w", entry.Name(), err)
		}
		stmts := Statements(string(content))
		if len(stmts) == 0 {
			continue
		}
		out = append(out, Migration{
			Version:    Version(entry.Name()),
			Name:       entry.Name(),
			Statements: stmts,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Version 取文件名中第一个下划线或点之前的部分，例如 0001_init.sql → 0001。
func Version(name string) string {
	if i := strings.IndexAny(name, "_."); i > 0 {
		return name[:i]
	}
	return name
}

// Statements 按分号切分 SQL，并去掉整行的 "--" 注释。
func Statements(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		lines = append(lines, line)
	}

	var stmts []string
	for _, raw := range strings.Split(strings.Join(lines, "\n"), ";") {
		if s := strings.TrimSpace(raw); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
