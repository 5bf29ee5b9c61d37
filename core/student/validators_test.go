package student

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_checkPassword(t *testing.T) {
	tests := []struct {
		name string
		pwd  string
		want string
	}{
		{name: "too short", pwd: "abc", want: pwdMinLenTag},
		{name: "whitespace", pwd: "abc def", want: pwdNoSpaceTag},
		{name: "numeric", pwd: "123456", want: pwdNotAllNumTag},
		{name: "like the hallticket", pwd: "25c01a7301x", want: pwdAttrSimTag},
		{name: "like the email", pwd: "alice123", want: pwdAttrSimTag},
		{name: "ok", pwd: "Tr0ub4dor", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, checkPassword(tt.pwd, "25C01A7301", "alice@test.edu"))
		})
	}
}
