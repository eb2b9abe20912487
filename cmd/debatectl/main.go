// debatectl 辯論平台的維運工具：資料庫遷移、帳號與比賽的管理操作
package main

import (
	"log"
	"os"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
