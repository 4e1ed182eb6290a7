package main

import (
	"flag"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/xpzouying/qzone-mcp/configs"
)

func main() {
	var (
		configPath   string
		headlessMode string
		binPath      string // 浏览器二进制文件路径
		port         string
	)
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径（YAML），不存在时使用默认配置")
	flag.StringVar(&headlessMode, "headless-mode", "new", "headless模式: new(推荐)/true/false")
	flag.StringVar(&binPath, "bin", "", "浏览器二进制文件路径")
	flag.StringVar(&port, "port", ":18060", "端口")
	flag.Parse()

	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("加载 .env 失败: %v", err)
	}

	if len(binPath) == 0 {
		binPath = os.Getenv("ROD_BROWSER_BIN")
	}

	configs.InitHeadlessMode(headlessMode)
	configs.SetBinPath(binPath)

	cfg, err := configs.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.Warnf("未知日志级别 %q，使用 info", cfg.LogLevel)
	}

	qzoneService := NewQzoneService(cfg)

	appServer := NewAppServer(qzoneService)
	if err := appServer.Start(port); err != nil {
		logrus.Fatalf("failed to run server: %v", err)
	}
}
