package main

import "github.com/heatisland/climate-etl/cmd"

func main() {
	cmd.Execute()
}
