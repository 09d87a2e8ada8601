// Command rcon is a command-line RCON client for Minecraft-family
// servers, built on the github.com/cavarest/rcon package.
package main

import "github.com/cavarest/rcon/cmd/rcon/commands"

func main() {
	commands.Execute()
}
