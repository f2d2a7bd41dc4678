package main

import "github.com/EddyBeaupre/MapTileDownloader/cmd"

func main() {
	cmd.Execute()
}
