// Package web 内嵌聊天界面静态资源
// 前端打包进二进制, 单文件即可部署
package web

import "embed"

//go:embed static
var Assets embed.FS
