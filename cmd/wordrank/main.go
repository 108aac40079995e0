package main

import "github.com/Ken-1219/multiplayer-contexto-sub000/internal/cli"

func main() {
	cli.Execute()
}
