package main

import "github.com/invatu/lvmengine/cmd/lvmengine/app"

func main() {
	app.Execute()
}
