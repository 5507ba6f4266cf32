package main

import "ibooking/internal/app/server"

func main() {
	server.Run()
}
