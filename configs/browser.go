package configs

// HeadlessMode 浏览器 headless 模式
type HeadlessMode string

const (
	HeadlessOff HeadlessMode = "false" // 有窗口（扫码登录调试用）
	HeadlessOld HeadlessMode = "true"
	HeadlessNew HeadlessMode = "new" // Chrome 112+
)

var (
	headlessMode HeadlessMode = HeadlessNew
	binPath                   = ""
)

// InitHeadlessMode 设置 headless 模式（"new"/"true"/"false"）
func InitHeadlessMode(m string) {
	switch HeadlessMode(m) {
	case HeadlessOff, HeadlessOld, HeadlessNew:
		headlessMode = HeadlessMode(m)
	default:
		headlessMode = HeadlessNew
	}
}

// GetHeadlessMode 当前 headless 模式
func GetHeadlessMode() HeadlessMode {
	return headlessMode
}

// IsHeadless 是否无窗口运行
func IsHeadless() bool {
	return headlessMode != HeadlessOff
}

func SetBinPath(b string) {
	binPath = b
}

func GetBinPath() string {
	return binPath
}
