package codec

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"git-browser-web/pkg/logger"

	"go.uber.org/zap"
)

// 消息类型
const (
	TypeEncode               = "encode"
	TypeDecode               = "decode"
	TypeConvertToArrayBuffer = "convertToArrayBuffer"
)

// Message 是发给编解码通道的请求
type Message struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Raw     bool   `json:"raw,omitempty"`
}

// Result 是编解码结果，Value 和 Bytes 都为空表示 null
type Result struct {
	Value *string `json:"value"`
	Bytes []byte  `json:"bytes,omitempty"`
}

// IsNull 结果是否为 null
func (r Result) IsNull() bool {
	return r.Value == nil && r.Bytes == nil
}

type request struct {
	msg   Message
	reply chan Result
}

// Channel 在后台 goroutine 中执行 base64 编解码，避免大文件阻塞调用方
//
// 调用方不再使用时必须调用 Close。
type Channel struct {
	requests chan request
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	closed   atomic.Bool
}

// NewChannel 创建编解码通道并启动后台 goroutine
func NewChannel() *Channel {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		requests: make(chan request),
		ctx:      ctx,
		cancel:   cancel,
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

func (c *Channel) worker() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case req := <-c.requests:
			// reply 有缓冲，调用方放弃等待时不会阻塞
			req.reply <- handle(req.msg)
		}
	}
}

func handle(msg Message) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("编解码异常", zap.String("type", msg.Type), zap.String("panic", fmt.Sprint(r)))
			res = Result{}
		}
	}()

	switch msg.Type {
	case TypeEncode:
		if v, ok := encode(msg.Message, msg.Raw); ok {
			return Result{Value: &v}
		}
	case TypeDecode:
		if v, ok := decode(msg.Message, msg.Raw); ok {
			return Result{Value: &v}
		}
	case TypeConvertToArrayBuffer:
		if b, ok := toByteArray(msg.Message); ok {
			return Result{Bytes: b}
		}
	default:
		logger.Warn("未知的编解码消息类型", zap.String("type", msg.Type))
	}
	return Result{}
}

// Do 把消息交给后台 goroutine 处理并等待结果
//
// 通道已关闭或 ctx 被取消时返回 null。
func (c *Channel) Do(ctx context.Context, msg Message) Result {
	if c.closed.Load() || ctx.Err() != nil {
		return Result{}
	}
	req := request{msg: msg, reply: make(chan Result, 1)}

	select {
	case c.requests <- req:
	case <-ctx.Done():
		return Result{}
	case <-c.ctx.Done():
		return Result{}
	}

	select {
	case res := <-req.reply:
		return res
	case <-ctx.Done():
		return Result{}
	case <-c.ctx.Done():
		return Result{}
	}
}

// Decode 解码 base64。raw 为 true 时得到二进制字符串，否则要求内容是合法的 UTF-8
func (c *Channel) Decode(ctx context.Context, b64 string, raw bool) (string, bool) {
	res := c.Do(ctx, Message{Type: TypeDecode, Message: b64, Raw: raw})
	if res.Value == nil {
		return "", false
	}
	return *res.Value, true
}

// Encode 编码为 base64。raw 为 true 时每个字符必须能用一个字节表示
func (c *Channel) Encode(ctx context.Context, text string, raw bool) (string, bool) {
	res := c.Do(ctx, Message{Type: TypeEncode, Message: text, Raw: raw})
	if res.Value == nil {
		return "", false
	}
	return *res.Value, true
}

// ToByteArray 把 base64 内容解码为字节
func (c *Channel) ToByteArray(ctx context.Context, b64 string) ([]byte, bool) {
	res := c.Do(ctx, Message{Type: TypeConvertToArrayBuffer, Message: b64})
	if res.Bytes == nil {
		return nil, false
	}
	return res.Bytes, true
}

// Close 停止后台 goroutine，可以重复调用
func (c *Channel) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.cancel()
	c.wg.Wait()
}
