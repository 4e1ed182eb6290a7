package qzone

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanArrayField(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		field  string
		want   string
		wantOK bool
	}{
		{
			name:   "嵌套数组",
			input:  `{code:0,data:[{a:[1,[2,3]]},{b:[]}],more:1}`,
			field:  "data",
			want:   `{a:[1,[2,3]]},{b:[]}`,
			wantOK: true,
		},
		{
			name:   "字符串里有不配对的括号",
			input:  `{data:[{s:"a[b",t:'x]y'}],tail:[9]}`,
			field:  "data",
			want:   `{s:"a[b",t:'x]y'}`,
			wantOK: true,
		},
		{
			name:   "转义引号",
			input:  `{data:["a\"]b",'c\']d'],x:1}`,
			field:  "data",
			want:   `"a\"]b",'c\']d'`,
			wantOK: true,
		},
		{
			name:   "字段名有空白",
			input:  `{ friend_data : [ 1 ] }`,
			field:  "friend_data",
			want:   ` 1 `,
			wantOK: true,
		},
		{
			name:   "不会把 mydata 当成 data",
			input:  `{mydata:[1],data:[2]}`,
			field:  "data",
			want:   `2`,
			wantOK: true,
		},
		{name: "字段不存在", input: `{code:0,list:[1,2]}`, field: "data", wantOK: false},
		{name: "括号不闭合", input: `{data:[{a:1}`, field: "data", wantOK: false},
		{name: "空输入", input: ``, field: "data", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ScanArrayField(tt.input, tt.field)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestExtractPayloadStrictJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode int
	}{
		{name: "完整 JSON", input: ` {"code":0,"message":"ok"} `, wantCode: 0},
		{name: "_Callback 包装", input: `_Callback({"code":-3000,"message":"请先登录"});`, wantCode: -3000},
		{
			name:     "frameElement.callback 包装",
			input:    `<html><script>frameElement.callback({"code":0,"tid":"abc","nested":{"x":"}"}});</script></html>`,
			wantCode: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ExtractPayload(tt.input)
			require.Equal(t, PayloadStrictJSON, p.Kind)
			code := objInt(p.Object, "code")
			require.NotNil(t, code)
			assert.Equal(t, tt.wantCode, *code)
			assert.NotEmpty(t, p.Head)
		})
	}
}

func TestExtractPayloadJSLiteral(t *testing.T) {
	body := `_Callback({code:0,subcode:0,data:{main:{uin:1},data:[{html:'<p>x</p>',opuin:'1',abstime:'1700000000'}]},undefined});`

	p := ExtractPayload(body, "data")
	require.Equal(t, PayloadJSLiteralArray, p.Kind)
	assert.Equal(t, "data", p.Field)
	assert.Equal(t, `{html:'<p>x</p>',opuin:'1',abstime:'1700000000'}`, p.ArrayBody)
}

func TestExtractPayloadFieldOrder(t *testing.T) {
	body := `{host_data:[{a:1}],friend_data:[{b:2}]`

	p := ExtractPayload(body, "friend_data", "host_data")
	require.Equal(t, PayloadJSLiteralArray, p.Kind)
	assert.Equal(t, "friend_data", p.Field)
	assert.Equal(t, `{b:2}`, p.ArrayBody)
}

func TestExtractPayloadUnparseable(t *testing.T) {
	body := "<html>\n<body>502 Bad Gateway</body>\n</html>"

	p := ExtractPayload(body, "data")
	assert.Equal(t, PayloadUnparseable, p.Kind)
	assert.Equal(t, "unparseable", p.Kind.String())
	assert.NotContains(t, p.Head, "\n")
	assert.Contains(t, p.Head, "502 Bad Gateway")
}

func TestHeadBounded(t *testing.T) {
	body := strings.Repeat("空", 1000)
	assert.Equal(t, 300, utf8.RuneCountInString(Head(body)))

	assert.Equal(t, "a b c", Head("a\nb\rc"))
}

func TestHTMLItems(t *testing.T) {
	arr := `{html:'<i name=\"feed_data\" data-tid=\"abc\">',opuin:'123',abstime:'1700000000'},` +
		`{abstime:'1700000100',html:'\x3Cdiv\x3Ehi\x3C\/div\x3E',uin:'5'}`

	items := HTMLItems(arr, 0)
	require.Len(t, items, 2)

	assert.Equal(t, `<i name="feed_data" data-tid="abc">`, items[0].HTML)
	assert.Equal(t, int64(1700000000), items[0].Abstime)

	// abstime 在 html 之前也能找到
	assert.Equal(t, `<div>hi</div>`, items[1].HTML)
	assert.Equal(t, int64(1700000100), items[1].Abstime)
}

func TestHTMLItemsLimit(t *testing.T) {
	arr := `{html:'a',uin:'1'},{html:'b',uin:'2'},{html:'c',uin:'3'}`

	items := HTMLItems(arr, 2)
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].HTML)
	assert.Equal(t, "b", items[1].HTML)
}

func TestHTMLItemsQuotedFallback(t *testing.T) {
	items := HTMLItems(`{html:"<p>\"x\"</p>"}`, 0)
	require.Len(t, items, 1)
	assert.Equal(t, `<p>"x"</p>`, items[0].HTML)
	assert.Zero(t, items[0].Abstime)
}

func TestHTMLItemsEmpty(t *testing.T) {
	assert.Empty(t, HTMLItems("", 0))
	assert.Empty(t, HTMLItems(`{uin:'1'}`, 0))
}
