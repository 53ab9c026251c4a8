// Package callback 提供问答编排的执行日志
// 通过 Eino 全局回调记录图中各节点的起止与错误
package callback

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
)

// Logger 记录 Eino 组件执行事件
// 错误始终记录, 起止事件仅在 debug 模式下输出
type Logger struct {
	Debug bool
}

// NewLogger 创建日志回调处理器
func NewLogger(debug bool) *Logger {
	return &Logger{Debug: debug}
}

// OnStart 节点开始执行时调用
func (l *Logger) OnStart(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
	if l.Debug {
		log.Printf("[Eino] start: name=%s component=%s input=%s",
			info.Name, info.Component, truncate(input))
	}
	return ctx
}

// OnEnd 节点执行成功时调用
func (l *Logger) OnEnd(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
	if l.Debug {
		log.Printf("[Eino] end: name=%s component=%s output=%s",
			info.Name, info.Component, truncate(output))
	}
	return ctx
}

// OnError 节点执行失败时调用
func (l *Logger) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	log.Printf("[Eino] error: name=%s component=%s error=%v",
		info.Name, info.Component, err)
	return ctx
}

// OnStartWithStreamInput 流式输入开始时调用
// 当前编排全部走 Invoke, 流式钩子只做资源回收
func (l *Logger) OnStartWithStreamInput(ctx context.Context, info *callbacks.RunInfo, input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	if input != nil {
		input.Close()
	}
	if l.Debug {
		log.Printf("[Eino] stream start: name=%s component=%s", info.Name, info.Component)
	}
	return ctx
}

// OnEndWithStreamOutput 流式输出结束时调用
func (l *Logger) OnEndWithStreamOutput(ctx context.Context, info *callbacks.RunInfo, output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	if output != nil {
		output.Close()
	}
	if l.Debug {
		log.Printf("[Eino] stream end: name=%s component=%s", info.Name, info.Component)
	}
	return ctx
}

// truncate 截断长负载, 避免日志刷屏
func truncate(v interface{}) string {
	if v == nil {
		return ""
	}
	s := fmt.Sprintf("%v", v)
	if r := []rune(s); len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}

// Register 注册全局回调, 进程内所有编排共用一个处理器
func Register(debug bool) {
	callbacks.AppendGlobalHandlers(NewLogger(debug))
}
