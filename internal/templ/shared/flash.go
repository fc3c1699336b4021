// Package shared holds view types and components used by every page.
package shared

import (
	"context"
	"io"

	twmerge "github.com/Oudwins/tailwind-merge-go"
	"github.com/a-h/templ"
)

// FlashType selects the styling of a flash banner.
type FlashType string

const (
	FlashSuccess FlashType = "success"
	FlashError   FlashType = "error"
	FlashInfo    FlashType = "info"
)

// Flash is a one-off message shown above a form.
type Flash struct {
	Type    FlashType
	Message string
}

// SuccessFlash returns a success banner.
func SuccessFlash(message string) *Flash {
	return &Flash{Type: FlashSuccess, Message: message}
}

// ErrorFlash returns an error banner.
func ErrorFlash(message string) *Flash {
	return &Flash{Type: FlashError, Message: message}
}

// InfoFlash returns an informational banner.
func InfoFlash(message string) *Flash {
	return &Flash{Type: FlashInfo, Message: message}
}

const bannerBase = "mb-6 rounded-md p-4 text-sm bg-blue-50 text-blue-800"

var bannerVariants = map[FlashType]string{
	FlashSuccess: "bg-green-50 text-green-800",
	FlashError:   "bg-red-50 text-red-800",
	FlashInfo:    "bg-blue-50 text-blue-800",
}

// BannerClass returns the merged class list for a banner of type t.
func BannerClass(t FlashType, extra ...string) string {
	return twmerge.Merge(append([]string{bannerBase, bannerVariants[t]}, extra...)...)
}

// Banner renders f as an alert box. A nil or empty flash renders nothing.
func Banner(f *Flash) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if f == nil || f.Message == "" {
			return nil
		}
		role := "status"
		if f.Type == FlashError {
			role = "alert"
		}
		_, err := io.WriteString(w, `<div class="`+templ.EscapeString(BannerClass(f.Type))+
			`" role="`+role+`" data-flash="`+templ.EscapeString(string(f.Type))+`">`+
			templ.EscapeString(f.Message)+`</div>`)
		return err
	})
}
