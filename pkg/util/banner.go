package util

import (
	"fmt"
	"io"

	"github.com/common-nighthawk/go-figure"
)

// 定义颜色常量
const (
	ColorReset  = "\x1b[0m"
	ColorRed    = "\x1b[1;31m"
	ColorGreen  = "\x1b[1;32m"
	ColorYellow = "\x1b[1;33m"
	ColorBlue   = "\x1b[1;34m"
	ColorCyan   = "\x1b[1;36m"
)

// Version 构建时可通过 -ldflags "-X github.com/agent-runner/pkg/util.Version=..." 覆盖
var Version = "dev"

var colors = map[string]string{
	"ColorRed":    ColorRed,
	"ColorGreen":  ColorGreen,
	"ColorYellow": ColorYellow,
	"ColorBlue":   ColorBlue,
	"ColorCyan":   ColorCyan,
}

// PrintBanner 打印统一颜色的 ASCII banner 与版本号，未知颜色不着色
func PrintBanner(w io.Writer, text string, color string) {
	ansi, ok := colors[color]
	if !ok {
		ansi = ColorReset
	}
	fig := figure.NewFigure(text, "", true)
	for _, line := range fig.Slicify() {
		fmt.Fprintln(w, ansi+line+ColorReset)
	}
	fmt.Fprintf(w, "%s version %s\n", text, Version)
}
