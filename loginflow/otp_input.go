package loginflow

import "strings"

// OTPLength is the number of digits in a one time password.
const OTPLength = 6

// OtpInput models the six single digit boxes and which one has focus.
type OtpInput struct {
	digits [OTPLength]string
	focus  int
}

// Enter sets box i to ch. Only a single digit or the empty string is
// accepted; anything else leaves the input unchanged and returns false. A
// digit moves focus to the next box.
func (o *OtpInput) Enter(i int, ch string) bool {
	if i < 0 || i >= OTPLength {
		return false
	}
	if ch != "" && (len(ch) != 1 || ch[0] < '0' || ch[0] > '9') {
		return false
	}
	o.digits[i] = ch
	o.focus = i
	if ch != "" && i < OTPLength-1 {
		o.focus = i + 1
	}
	return true
}

// Backspace on an empty box moves focus back one; on a filled box it clears
// the digit.
func (o *OtpInput) Backspace(i int) {
	if i < 0 || i >= OTPLength {
		return
	}
	if o.digits[i] != "" {
		o.digits[i] = ""
		o.focus = i
		return
	}
	if i > 0 {
		o.focus = i - 1
	}
}

func (o OtpInput) Focus() int { return o.focus }

func (o OtpInput) Digits() [OTPLength]string { return o.digits }

func (o OtpInput) Complete() bool {
	for _, d := range o.digits {
		if d == "" {
			return false
		}
	}
	return true
}

func (o OtpInput) Code() string {
	return strings.Join(o.digits[:], "")
}

func (o *OtpInput) Reset() {
	o.digits = [OTPLength]string{}
	o.focus = 0
}
