package main

import "github.com/chxlky/kanban-sync/cmd"

func main() {
	cmd.Execute()
}
