package resume

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`\S+@\S+\.\S+`)

// ValidationError 汇总保存前的校验问题。
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid resume: " + strings.Join(e.Problems, "; ")
}

// Validate 校验标题、姓名与邮箱。
func (d *Document) Validate() error {
	var problems []string
	if strings.TrimSpace(d.Title) == "" {
		problems = append(problems, "resume title is required")
	}
	if strings.TrimSpace(d.PersonalInfo.Name) == "" {
		problems = append(problems, "full name is required")
	}
	email := strings.TrimSpace(d.PersonalInfo.Email)
	if email == "" || !emailPattern.MatchString(email) {
		problems = append(problems, "valid email is required")
	}
	if len(problems) == 0 {
		return nil
	}
	return &ValidationError{Problems: problems}
}
