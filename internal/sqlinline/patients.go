package sqlinline

// QInsertPatient creates a patient if the clinic is still under its plan's
// patient cap; zero rows back means the cap was hit.
const QInsertPatient = `--sql 3f8b1c6e-92a4-4e7d-b0f1-5a2c9d84e671
with occupancy as (
    select count(*)::int as n
    from patients
    where clinic_id = $1
)
insert into patients (id, clinic_id, name, email, phone, birth_date, notes, created_at, updated_at)
select gen_random_uuid(), $1, $2, $3, $4, $5, $6, now(), now()
from occupancy
where occupancy.n < $7
returning id, clinic_id, name, email, phone, birth_date, notes, created_at, updated_at;
`

const QSelectPatientByID = `--sql a95720de-4c31-4b8a-8f02-bc6d13f7a840
select id, clinic_id, name, email, phone, birth_date, notes, created_at, updated_at
from patients
where id = $1::uuid
  and clinic_id = $2::uuid
limit 1;
`

const QListPatients = `--sql 5d02c4f7-8e19-47d3-9a6b-041e77c5b2c8
select id, clinic_id, name, email, phone, birth_date, notes, created_at, updated_at
from patients
where clinic_id = $1::uuid
order by name
limit $2;
`

const QUpdatePatient = `--sql c6e3a81b-09d5-4f46-b7aa-92301fd6e45a
update patients
set name = $3,
    email = $4,
    phone = $5,
    birth_date = $6,
    notes = $7,
    updated_at = now()
where id = $1::uuid
  and clinic_id = $2::uuid
returning id, clinic_id, name, email, phone, birth_date, notes, created_at, updated_at;
`

const QDeletePatient = `--sql 18d4fb2a-6c07-4509-8be3-d75a90c412ef
delete from patients
where id = $1::uuid
  and clinic_id = $2::uuid;
`
