package storage

import "fmt"

// 导出产物在 Bucket 中的布局：exports/<user>/<resume>/ 下存放 PDF 与首页预览。

// ExportPrefix 某份简历所有导出产物的前缀。
func ExportPrefix(userID, resumeID uint) string {
	return fmt.Sprintf("exports/%d/%d/", userID, resumeID)
}

// ExportKey 导出 PDF 的对象名，每次导出使用新的 exportID。
func ExportKey(userID, resumeID uint, exportID string) string {
	return ExportPrefix(userID, resumeID) + exportID + ".pdf"
}

// PreviewKey 首页预览图，固定路径覆盖写入。
func PreviewKey(userID, resumeID uint) string {
	return ExportPrefix(userID, resumeID) + "preview.jpg"
}
