// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// This is an example app showing how to host routes on a roxlet server.

package example

import (
	"sort"
	"strconv"
	"sync"

	. "github.com/hexinfra/roxlet/hemi"
)

// Setup registers routes and error handles of the example app.
func Setup(server *Server) {
	a := newApp()

	server.GET("/", a.handleIndex)
	server.GET("/home", a.handleHome)
	server.GET("/old-home", a.handleOldHome)

	server.GET("/users", a.handleListUsers)
	server.POST("/users", a.handleCreateUser)
	server.GET("/users/active", a.handleActiveUsers) // wins over /users/:id
	server.GET("/users/:id", a.handleGetUser)
	server.PUT("/users/:id", a.handleUpdateUser)
	server.PATCH("/users/:id", a.handleUpdateUser)
	server.DELETE("/users/:id", a.handleDeleteUser)
	server.GET("/users/:id/posts/:post_id", a.handleGetPost)

	server.OnNotFound(func(req *Request, err error) {
		req.JSON(map[string]string{"error": "Not found", "path": req.Path()}, StatusNotFound)
	})
}

// user is a user record.
type user struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// app keeps users in memory.
type app struct {
	mutex  sync.RWMutex
	users  map[int]*user
	nextID int
}

func newApp() *app {
	a := new(app)
	a.users = make(map[int]*user)
	a.nextID = 1
	return a
}

func (a *app) handleIndex(req *Request) {
	req.JSON(map[string]string{"data": "Welcome!"}, StatusOK)
}
func (a *app) handleHome(req *Request) {
	query := req.Query()
	if query.IsMulti("week") {
		req.JSON(map[string][]string{"data": query.List("week")}, StatusOK)
	} else if week, ok := query.Get("week"); ok {
		req.JSON(map[string]string{"data": week}, StatusOK)
	} else {
		req.JSON(map[string]string{"data": "You are home!"}, StatusOK)
	}
}
func (a *app) handleOldHome(req *Request) {
	req.Redirect("/home")
}

func (a *app) handleListUsers(req *Request) {
	a.mutex.RLock()
	users := make([]user, 0, len(a.users))
	for _, u := range a.users {
		users = append(users, *u)
	}
	a.mutex.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	req.JSON(map[string]any{"data": users}, StatusOK)
}
func (a *app) handleActiveUsers(req *Request) {
	a.mutex.RLock()
	users := make([]user, 0)
	for _, u := range a.users {
		if u.Active {
			users = append(users, *u)
		}
	}
	a.mutex.RUnlock()
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	req.JSON(map[string]any{"data": users}, StatusOK)
}
func (a *app) handleCreateUser(req *Request) {
	var input struct {
		Name   string `json:"name"`
		Active bool   `json:"active"`
	}
	if err := req.Bind(&input); err != nil || input.Name == "" {
		req.JSON(map[string]string{"error": "name is required"}, 400)
		return
	}
	a.mutex.Lock()
	stored := &user{ID: a.nextID, Name: input.Name, Active: input.Active}
	a.users[stored.ID] = stored
	a.nextID++
	u := *stored
	a.mutex.Unlock()
	req.JSON(map[string]any{"data": u}, 201)
}
func (a *app) handleGetUser(req *Request) {
	u, ok := a.find(req)
	if !ok {
		req.JSON(map[string]string{"error": "user not found"}, StatusNotFound)
		return
	}
	req.JSON(map[string]any{"data": u}, StatusOK)
}
func (a *app) handleUpdateUser(req *Request) {
	var input struct {
		Name   *string `json:"name"`
		Active *bool   `json:"active"`
	}
	if err := req.Bind(&input); err != nil {
		req.JSON(map[string]string{"error": "invalid input"}, 400)
		return
	}
	id, err := strconv.Atoi(req.Param("id"))
	if err != nil {
		req.JSON(map[string]string{"error": "user not found"}, StatusNotFound)
		return
	}
	var u user
	a.mutex.Lock()
	stored, ok := a.users[id]
	if ok {
		if input.Name != nil {
			stored.Name = *input.Name
		}
		if input.Active != nil {
			stored.Active = *input.Active
		}
		u = *stored
	}
	a.mutex.Unlock()
	if !ok {
		req.JSON(map[string]string{"error": "user not found"}, StatusNotFound)
		return
	}
	req.JSON(map[string]any{"data": u}, StatusOK)
}
func (a *app) handleDeleteUser(req *Request) {
	id, err := strconv.Atoi(req.Param("id"))
	if err != nil {
		req.SendStatus(StatusNotFound)
		return
	}
	a.mutex.Lock()
	_, ok := a.users[id]
	delete(a.users, id)
	a.mutex.Unlock()
	if !ok {
		req.SendStatus(StatusNotFound)
		return
	}
	req.SendStatus(204)
}
func (a *app) handleGetPost(req *Request) {
	if _, ok := a.find(req); !ok {
		req.JSON(map[string]string{"error": "user not found"}, StatusNotFound)
		return
	}
	req.JSON(map[string]any{"data": map[string]string{"user": req.Param("id"), "post": req.Param("post_id")}}, StatusOK)
}

func (a *app) find(req *Request) (user, bool) {
	id, err := strconv.Atoi(req.Param("id"))
	if err != nil {
		return user{}, false
	}
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	if u, ok := a.users[id]; ok {
		return *u, true
	}
	return user{}, false
}
