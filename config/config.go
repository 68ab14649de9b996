package config

// Initialize 触发本目录下所有 init() 配置注册
// main.go 中通过空引用的方式加载本包
func Initialize() {
	// 配置信息均在各文件的 init() 中注册完成
}
