// Package goid 读取当前 goroutine 编号，仅用于日志字段
package goid

import (
	"runtime"
	"strconv"
)

// Get 解析 runtime.Stack 的首行（"goroutine 123 [running]:"）
func Get() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	var id uint64
	for i := len("goroutine "); i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			break
		}
		id = id*10 + uint64(c-'0')
	}
	return id
}

// String 同 Get，返回十进制字符串
func String() string {
	return strconv.FormatUint(Get(), 10)
}
