// Package api 處理 HTTP 請求路由和處理。
//
// 這個包包含了所有的 HTTP 路由設定，handlers 子包負責將 HTTP 請求轉換為服務調用，
// 並將服務層的錯誤類別對應成 HTTP 狀態碼。
package api
