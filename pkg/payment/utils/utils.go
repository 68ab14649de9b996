// Package utils 支付相关的辅助函数
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateReferenceID 生成本地业务参考号
func GenerateReferenceID() string {
	return fmt.Sprintf("%s%d", time.Now().Format("20060102150405"), time.Now().UnixNano()%1000)
}

// GenerateIdempotencyKey 生成提供商请求的幂等键
func GenerateIdempotencyKey() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
