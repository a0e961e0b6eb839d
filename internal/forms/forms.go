// Package forms declares the input schemas of the HTML forms, their validation
// rules and the mapping between them and the storage models.
package forms

import (
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"finder/internal/domain"
)

// DateLayout is the wire format of date inputs
const DateLayout = "2006-01-02"

var ErrPictureType = errors.New("picture must be a jpeg, jpg or png file")

var allowedPictureExt = map[string]bool{".jpeg": true, ".jpg": true, ".png": true}

// SignupForm is posted to /signup
type SignupForm struct {
	Username        string `form:"username" json:"username" binding:"required,min=5,max=12"`
	Email           string `form:"email" json:"email" binding:"required,email,max=60"`
	Password        string `form:"password" json:"-" binding:"required,min=5,max=15"`
	ConfirmPassword string `form:"confirm_password" json:"-" binding:"eqfield=Password"`
}

// LoginForm is posted to /login and, as JSON, to /api/token
type LoginForm struct {
	Username string `form:"username" json:"username" binding:"required,min=5,max=12"`
	Password string `form:"password" json:"password" binding:"required,min=5,max=15"`
}

// ProfileForm is posted to /profile. The picture arrives as a separate multipart file.
type ProfileForm struct {
	FullName   string `form:"full_name" json:"full_name" binding:"max=60"`
	NickName   string `form:"nick_name" json:"nick_name" binding:"max=60"`
	Email      string `form:"email" json:"email" binding:"omitempty,email,max=60"`
	PhoneNum   string `form:"phone_num" json:"phone_num" binding:"max=30"`
	Address    string `form:"address" json:"address" binding:"max=60"`
	BirthDate  string `form:"birth_date" json:"birth_date" binding:"omitempty,datetime=2006-01-02"`
	BirthPlace string `form:"birth_place" json:"birth_place" binding:"max=60"`
	Website    string `form:"website" json:"website" binding:"max=60"`
}

// ProfileFormFrom copies the editable profile columns into a form
func ProfileFormFrom(p *domain.Profile) ProfileForm {
	f := ProfileForm{
		FullName:   p.FullName,
		NickName:   p.NickName,
		Email:      p.Email,
		PhoneNum:   p.PhoneNumber,
		Address:    p.Address,
		BirthPlace: p.BirthPlace,
		Website:    p.Website,
	}
	if p.BirthDate != nil {
		f.BirthDate = p.BirthDate.Format(DateLayout)
	}
	return f
}

// CopyTo overwrites every editable profile column with the form values,
// blanks included. The form must have passed validation.
func (f ProfileForm) CopyTo(p *domain.Profile) error {
	p.FullName = f.FullName
	p.NickName = f.NickName
	p.Email = f.Email
	p.PhoneNumber = f.PhoneNum
	p.Address = f.Address
	p.BirthPlace = f.BirthPlace
	p.Website = f.Website

	p.BirthDate = nil
	if f.BirthDate != "" {
		d, err := time.Parse(DateLayout, f.BirthDate)
		if err != nil {
			return err
		}
		p.BirthDate = &d
	}
	return nil
}

// CheckPicture enforces the picture extension allow-list
func CheckPicture(fh *multipart.FileHeader) error {
	if !allowedPictureExt[strings.ToLower(filepath.Ext(fh.Filename))] {
		return ErrPictureType
	}
	return nil
}
