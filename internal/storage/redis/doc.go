// Package redis 使用 Redis 字符串键保存工作流存储槽，适合多实例共享数据。
package redis
