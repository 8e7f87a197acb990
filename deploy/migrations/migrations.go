package migrations

import "embed"

// Files 暴露 workflow_slots 相关的 SQL 迁移。
//
//go:embed *.sql
var Files embed.FS
