package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/billdocs/internal/schema"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "nil error returns empty",
			err:      nil,
			wantCode: "",
		},
		{
			name:     "missing sheet",
			err:      &schema.ResolutionError{Sheet: "Work Order", Reason: "sheet not found in workbook (available: Title)"},
			wantCode: "SCH001",
		},
		{
			name:     "missing column",
			err:      &schema.ResolutionError{Sheet: "Work Order", Missing: []schema.Field{schema.Description}},
			wantCode: "SCH002",
		},
		{
			name:     "narrow title sheet",
			err:      &schema.ResolutionError{Sheet: "Title", Reason: "key/value sheet needs at least two columns, found 1"},
			wantCode: "SCH003",
		},
		{
			name:     "missing contractor",
			err:      &TemplateError{DocumentType: DocCertificateII, Reference: "title.contractor"},
			wantCode: "TPL001",
		},
		{
			name:     "generic template failure",
			err:      &TemplateError{DocumentType: DocSummary, Message: "write failed"},
			wantCode: "TPL002",
		},
		{
			name:     "wrapped file not found",
			err:      fmt.Errorf("process bill.xlsx: %w", errors.New("read workbook \"bill.xlsx\": workbook not found")),
			wantCode: "FILE001",
		},
		{
			name:     "corrupt zip",
			err:      errors.New("zip: not a valid zip file"),
			wantCode: "FILE002",
		},
		{
			name:     "permission denied",
			err:      errors.New("open /out/x.pdf: permission denied"),
			wantCode: "FILE004",
		},
		{
			name:     "no input files",
			err:      errors.New("no input files in /in"),
			wantCode: "BAT001",
		},
		{
			name:     "busy",
			err:      errors.New("too many batches in progress"),
			wantCode: "BAT003",
		},
		{
			name:     "cancelled context",
			err:      context.Canceled,
			wantCode: "BAT005",
		},
		{
			name:     "unknown error falls back",
			err:      errors.New("something odd"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q (err: %v)", got.Code, tt.wantCode, tt.err)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(errors.New("too many batches in progress"))
	want := "System is busy processing other batches (Code: BAT003). Please wait a moment and try again"
	if got != want {
		t.Errorf("FormatUserError() = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("sheet not found"), true},
		{errors.New("random failure"), false},
	}
	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
