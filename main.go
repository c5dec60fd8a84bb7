package main

import "aromabot/cmd"

func main() {
	cmd.Execute()
}
