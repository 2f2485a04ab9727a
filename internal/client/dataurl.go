package client

import "encoding/base64"

const jpegDataURLPrefix = "data:image/jpeg;base64,"

// EncodeDataURL wraps JPEG bytes as a data URL.
func EncodeDataURL(jpeg []byte) string {
	return jpegDataURLPrefix + base64.StdEncoding.EncodeToString(jpeg)
}
