package clog

import "bytes"

// withBuffer 测试专用选项，将日志输出写入指定的缓冲区（Output 需设为 "buffer"）
func withBuffer(buf *bytes.Buffer) Option {
	return func(o *options) {
		o.buffer = buf
	}
}
