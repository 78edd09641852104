package web

type signupForm struct {
	Username string `form:"username" binding:"required,username"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
	ImageURL string `form:"image_url" binding:"max=2048"`
}

type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

type profileForm struct {
	Username       string `form:"username" binding:"required,username"`
	Email          string `form:"email" binding:"required,email"`
	ImageURL       string `form:"image_url" binding:"max=2048"`
	HeaderImageURL string `form:"header_image_url" binding:"max=2048"`
	Bio            string `form:"bio" binding:"max=500"`
	Location       string `form:"location" binding:"max=128"`
	Password       string `form:"password" binding:"required"`
}

type messageForm struct {
	Text string `form:"text" binding:"required,max=140"`
}
