// Package middleware 提供了 HTTP 請求處理的中間件。
//
// AuthMiddleware 驗證 Bearer token 並把用戶 ID 與角色放進 gin.Context；
// RequestLogger 為每個請求指定 X-Request-ID 並以 slog 記錄存取日誌。
// 管理員權限不在這裡判斷，由 handler 呼叫服務層檢查。
package middleware
