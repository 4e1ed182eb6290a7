package cookies

import (
	"path/filepath"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderFromNetworkCookies(t *testing.T) {
	cs := []*proto.NetworkCookie{
		{Name: "uin", Value: "o0010001", Domain: ".qq.com"},
		{Name: "p_skey", Value: "generic", Domain: ".qq.com"},
		{Name: "p_skey", Value: "qzone", Domain: ".qzone.qq.com"},
		{Name: "skey", Value: "s", Domain: ".qq.com"},
		{Name: "a1", Value: "xhs", Domain: ".example.com"},
		nil,
	}

	got := HeaderFromNetworkCookies(cs, QQDomain)
	assert.Equal(t, "p_skey=qzone; uin=o0010001; skey=s", got)
}

func TestHeaderFromJSON(t *testing.T) {
	data := []byte(`[
		{"name":"p_skey","value":"abc","domain":".qzone.qq.com","path":"/","expires":1800000000,"httpOnly":false,"secure":true},
		{"name":"other","value":"x","domain":"example.com","path":"/"}
	]`)

	got, err := HeaderFromJSON(data, QQDomain)
	require.NoError(t, err)
	assert.Equal(t, "p_skey=abc", got)

	_, err = HeaderFromJSON([]byte("not json"), QQDomain)
	assert.Error(t, err)
}

func TestLocalCookieLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "cookies.json")
	c := NewLoadCookie(path)

	_, err := c.LoadCookies()
	assert.Error(t, err)

	require.NoError(t, c.SaveCookies([]byte(`[]`)))
	data, err := c.LoadCookies()
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	require.NoError(t, c.DeleteCookies())
	// 重复删除不报错
	require.NoError(t, c.DeleteCookies())
}
