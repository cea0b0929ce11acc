package logger

import "testing"

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM listings":                                   "SELECT",
		"  update listings set status = 'expired' RETURNING id":    "UPDATE",
		"WITH due AS (SELECT id FROM payments) DELETE FROM x":      "SELECT",
		"INSERT INTO notifications (id) VALUES (1)":                "INSERT",
		"":                                                         "UNKNOWN",
		"VACUUM":                                                   "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}
