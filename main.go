package main

import (
	"breathemate/config"
	"breathemate/helpers"
	"breathemate/routes"

	"log"

	"github.com/gin-gonic/gin"
)

func main() {

	log.Println("Starting BreatheMate...")

	key := config.GenerateRandomKey()
	helpers.SetJWTKey(key)

	//Init gin router
	r := gin.Default()
	api := r.Group("/api")
	routes.SetupRoutes(api)

	r.Static("/static", "./static")
	r.GET("/", func(c *gin.Context) { c.File("./static/index.html") })
	r.GET("/dashboard", func(c *gin.Context) { c.File("./static/dashboard.html") })
	r.GET("/record", func(c *gin.Context) { c.File("./static/record.html") })

	//Start the server
	r.Run(":8080")
}
