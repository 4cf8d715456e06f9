package main

import "RagDesk/client/ragdesk-cli/cmd"

func main() {
	cmd.Execute()
}
