package main

import "github.com/Rorical/zoltar/cmd"

func main() {
	cmd.Execute()
}
