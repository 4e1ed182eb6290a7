package qzone

import "github.com/pkg/errors"

// ErrEmptySessionKey 计算 g_tk 时 session key 为空
var ErrEmptySessionKey = errors.New("empty session key")

// GTK 计算 g_tk（QQ 空间接口必带的防 CSRF 参数）。
// 算法：hash 初始 5381，逐字符 hash += hash<<5 + codepoint，最后取低 31 位。
func GTK(skey string) (uint32, error) {
	if skey == "" {
		return 0, ErrEmptySessionKey
	}

	var hash uint64 = 5381
	for _, r := range skey {
		hash += (hash << 5) + uint64(r)
	}

	return uint32(hash & 0x7FFFFFFF), nil
}
