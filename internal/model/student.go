package model

// Student is a row of the `students` table and its API representation.
type Student struct {
    ID       uint64 `json:"id"`
    Name     string `json:"name"`
    LastName string `json:"last_name"`
    Phone    string `json:"phone"`
    Email    string `json:"email"`
}

// StudentPatch carries the fields of a partial update.
type StudentPatch struct {
    Name     *string
    LastName *string
    Phone    *string
    Email    *string
}

// Empty reports whether the patch changes nothing.
func (p StudentPatch) Empty() bool {
    return p.Name == nil && p.LastName == nil && p.Phone == nil && p.Email == nil
}
