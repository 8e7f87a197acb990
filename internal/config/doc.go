// Package config 读取 AutoFlow 的 JSON 或 YAML 配置文件，并补齐默认值。
package config
