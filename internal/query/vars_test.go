package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromQueryVars(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]string
		want     FilterRequest
		wantRest map[string]string
	}{
		{
			name:     "meta key customer user",
			vars:     map[string]string{"meta_key": "_customer_user", "meta_value": "12", "post_status": "any"},
			want:     FilterRequest{CustomerUser: 12},
			wantRest: map[string]string{"post_status": "any"},
		},
		{
			name:     "other meta key untouched",
			vars:     map[string]string{"meta_key": "_billing_phone", "meta_value": "555"},
			want:     FilterRequest{},
			wantRest: map[string]string{"meta_key": "_billing_phone", "meta_value": "555"},
		},
		{
			name:     "customer wins over wc_customer_user",
			vars:     map[string]string{"wc_customer_user": "3", "customer": "4"},
			want:     FilterRequest{CustomerUser: 4},
			wantRest: map[string]string{},
		},
		{
			name:     "empty customer ignored",
			vars:     map[string]string{"customer": ""},
			want:     FilterRequest{},
			wantRest: map[string]string{"customer": ""},
		},
		{
			name: "index vars",
			vars: map[string]string{
				"wc_customer_email": "jane@example.com",
				"wc_customer_name":  "jane",
				"wc_order_id":       "1007",
			},
			want:     FilterRequest{CustomerEmail: "jane@example.com", CustomerName: "jane", OrderID: "1007"},
			wantRest: map[string]string{},
		},
		{
			name:     "empty index vars consumed",
			vars:     map[string]string{"wc_customer_email": " "},
			want:     FilterRequest{},
			wantRest: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest := FromQueryVars(tt.vars)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantRest, rest)
		})
	}
}
