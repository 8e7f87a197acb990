// Package mysql 将工作流存储槽落到 MySQL 的 workflow_slots 表，
// 表结构由 deploy/migrations 中的嵌入式迁移维护。
package mysql
