package main

import "github.com/euphdk/netbox-api-export-import/cmd"

func main() {
	cmd.Execute()
}
