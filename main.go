package main

import "github.com/rolodex-app/directory-services/cmd"

func main() {
	cmd.Execute()
}
