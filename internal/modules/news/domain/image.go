package domain

import (
	"path"
	"strconv"
)

const (
	imagePrefix = "news_"
	imageExt    = ".jpg"
)

// ImagePath is the slash-separated relative path of the picture attached to
// post id. The same id always maps to the same path.
func ImagePath(dir string, id int64) string {
	return path.Join(dir, imagePrefix+strconv.FormatInt(id, 10)+imageExt)
}
