package network

import "errors"

var (
	// 错误：节点ID重复
	ErrDuplicateNode = errors.New("duplicate node id")
	// 错误：节点不存在
	ErrUnknownNode = errors.New("unknown node id")
	// 错误：边长度非法
	ErrInvalidLength = errors.New("link length must be finite and non-negative")
	// 错误：两节点之间没有边
	ErrNoLink = errors.New("no link between nodes")
)
