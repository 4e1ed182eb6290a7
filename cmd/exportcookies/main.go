package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/xpzouying/qzone-mcp/cookies"
	"github.com/xpzouying/qzone-mcp/qzone"
)

// Cookie 与 rod 的 proto.NetworkCookie JSON 字段一致，服务可以直接读取
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// chromeEpochOffset 1601-01-01 到 1970-01-01 的秒数
const chromeEpochOffset = 11644473600

func main() {
	var (
		dbPath  string
		domain  string
		outPath string
	)
	flag.StringVar(&dbPath, "db", defaultCookieDB(), "Chrome profile 里的 Cookies 数据库路径")
	flag.StringVar(&domain, "domain", cookies.QQDomain, "只导出这个域名后缀下的 cookie")
	flag.StringVar(&outPath, "out", cookies.GetCookiesFilePath(), "输出文件，默认 COOKIES_PATH 或 ./cookies.json")
	flag.Parse()

	if dbPath == "" {
		fmt.Fprintln(os.Stderr, "请用 -db 指定 Cookies 数据库路径")
		os.Exit(1)
	}

	db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=ro")
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开数据库失败: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	list, err := readCookies(db, domain)
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取 cookies 失败: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "序列化失败: %v\n", err)
		os.Exit(1)
	}
	if err := cookies.NewLoadCookie(outPath).SaveCookies(out); err != nil {
		fmt.Fprintf(os.Stderr, "写入失败: %v\n", err)
		os.Exit(1)
	}

	header, _ := cookies.HeaderFromJSON(out, domain)
	jar := qzone.ParseCookie(header)
	fmt.Printf("导出 %d 个 %s cookies 到 %s %s\n", len(list), domain, outPath, jar.Summary())
	if !jar.HasSessionKey() {
		fmt.Fprintln(os.Stderr, "警告: 没有找到 p_skey/skey，可能是 cookie 值被加密或尚未登录 QQ 空间")
	}
}

// defaultCookieDB 常见的 Chrome 默认 profile 位置
func defaultCookieDB() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	candidates := []string{
		filepath.Join(home, ".config", "google-chrome", "Default", "Cookies"),
		filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Cookies"),
		filepath.Join(home, ".config", "chromium", "Default", "Cookies"),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// readCookies 读取域名后缀匹配的明文 cookie，加密值（value 为空）跳过
func readCookies(db *sql.DB, domain string) ([]Cookie, error) {
	domain = strings.TrimPrefix(strings.TrimSpace(domain), ".")

	rows, err := db.Query(`
		SELECT name, value, host_key, path, expires_utc, is_secure, is_httponly, same_site
		FROM cookies
		WHERE host_key = ? OR host_key LIKE ?
		ORDER BY host_key, name`, domain, "%."+domain)
	if err != nil {
		return nil, errors.Wrap(err, "query cookies failed")
	}
	defer rows.Close()

	var list []Cookie
	for rows.Next() {
		var (
			c          Cookie
			sameSite   sql.NullInt64
			expiresUtc int64
			isSecure   int64
			isHTTPOnly int64
		)
		if err := rows.Scan(&c.Name, &c.Value, &c.Domain, &c.Path, &expiresUtc, &isSecure, &isHTTPOnly, &sameSite); err != nil {
			return nil, errors.Wrap(err, "scan cookie row failed")
		}
		if c.Value == "" {
			continue
		}
		c.Secure = isSecure == 1
		c.HTTPOnly = isHTTPOnly == 1
		c.Expires = chromeTimeToUnix(expiresUtc)
		if sameSite.Valid {
			c.SameSite = sameSiteName(sameSite.Int64)
		}
		list = append(list, c)
	}
	return list, errors.Wrap(rows.Err(), "iterate cookies failed")
}

// chromeTimeToUnix Chrome 用 1601 年起的微秒数，0 表示会话 cookie
func chromeTimeToUnix(v int64) float64 {
	if v <= 0 {
		return 0
	}
	return float64(v/1000000 - chromeEpochOffset)
}

func sameSiteName(v int64) string {
	switch v {
	case 1:
		return "Lax"
	case 2:
		return "Strict"
	case 0:
		return "None"
	default:
		return ""
	}
}
