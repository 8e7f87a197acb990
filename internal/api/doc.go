// Package api 暴露控制台、工作流画布、已保存工作流与面板状态的 REST 接口。
package api
