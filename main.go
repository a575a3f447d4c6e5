package main

import "github.com/Norgate-AV/featprobe/cmd"

func main() {
	cmd.Execute()
}
